package cli

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/digitorus/pdfcert/seal"
)

func VerifyCommand() {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)

	var sigPath, rootsPath string
	verifyFlags.StringVar(&sigPath, "sig", "", "Detached signature (default: <input.pdf>.p7s)")
	verifyFlags.StringVar(&rootsPath, "roots", "", "PEM file with trusted root certificates; without it only the signature is checked")

	verifyFlags.Usage = func() {
		fmt.Printf("Usage: %s verify [options] <certificate.pdf>\n\n", os.Args[0])
		fmt.Println("Verify the detached seal written next to a generated certificate")
		fmt.Println("\nOptions:")
		verifyFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s verify Certificates_1/Alice.pdf\n", os.Args[0])
		fmt.Printf("  %s verify -roots ca.pem Certificates_1/Alice.pdf\n", os.Args[0])
	}

	if err := verifyFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse verify flags: %v", err)
		osExit(1)
		return
	}
	if verifyFlags.NArg() < 1 {
		verifyFlags.Usage()
		osExit(1)
		return
	}

	if err := Verify(os.Stdout, verifyFlags.Arg(0), sigPath, rootsPath); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

// VerifyResult is the JSON document printed by verify.
type VerifyResult struct {
	File      string     `json:"file"`
	Signature string     `json:"signature"`
	Signer    string     `json:"signer"`
	Issuer    string     `json:"issuer"`
	Trusted   bool       `json:"trusted"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Verify checks the seal of the certificate at pdfPath and writes the result
// to w as JSON. sigPath defaults to pdfPath with ".p7s" appended.
func Verify(w io.Writer, pdfPath, sigPath, rootsPath string) error {
	if sigPath == "" {
		sigPath = pdfPath + ".p7s"
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return err
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return err
	}

	var roots *x509.CertPool
	if rootsPath != "" {
		pemData, err := os.ReadFile(rootsPath)
		if err != nil {
			return err
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pemData) {
			return errors.New("no certificates found in " + rootsPath)
		}
	}

	res, err := seal.Verify(data, sig, roots)
	if err != nil {
		return err
	}

	out := VerifyResult{
		File:      pdfPath,
		Signature: sigPath,
		Trusted:   res.Trusted,
	}
	if res.Signer != nil {
		out.Signer = res.Signer.Subject.String()
		out.Issuer = res.Signer.Issuer.String()
	}
	if !res.Timestamp.IsZero() {
		ts := res.Timestamp
		out.Timestamp = &ts
	}

	jsonData, err := json.Marshal(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
