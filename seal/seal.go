// Package seal produces detached CMS signatures for generated certificates.
//
// A sealed certificate is shipped together with a "<file>.p7s" sidecar
// holding a SHA-256 SignedData over the exact PDF bytes. When a time-stamp
// authority is configured the signature carries an RFC 3161 token as an
// unsigned attribute.
package seal

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
)

// OIDTimeStampToken is id-aa-timeStampToken.
var OIDTimeStampToken = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}

// Sealer signs a finished document.
type Sealer interface {
	Seal(ctx context.Context, data []byte) ([]byte, error)
}

// Signer seals documents with a certificate and private key.
type Signer struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
	// Chain holds the issuers of Certificate, leaf excluded.
	Chain []*x509.Certificate

	// TSA is the URL of an RFC 3161 time-stamp authority. Optional.
	TSA         string
	TSAUsername string
	TSAPassword string

	// HTTPClient is used for TSA requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Seal returns a DER encoded detached SignedData over data.
func (s *Signer) Seal(ctx context.Context, data []byte) ([]byte, error) {
	if s.Certificate == nil || s.Key == nil {
		return nil, errors.New("signer requires a certificate and a private key")
	}

	signedData, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, fmt.Errorf("new signed data: %w", err)
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := signedData.AddSignerChain(s.Certificate, s.Key, s.Chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer chain: %w", err)
	}
	signedData.Detach()

	if s.TSA != "" {
		sd := signedData.GetSignedData()

		response, err := s.requestTimestamp(ctx, sd.SignerInfos[0].EncryptedDigest)
		if err != nil {
			return nil, fmt.Errorf("get timestamp: %w", err)
		}
		ts, err := timestamp.ParseResponse(response)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		if _, err := pkcs7.Parse(ts.RawToken); err != nil {
			return nil, fmt.Errorf("parse timestamp token: %w", err)
		}

		attr := pkcs7.Attribute{
			Type:  OIDTimeStampToken,
			Value: asn1.RawValue{FullBytes: ts.RawToken},
		}
		if err := sd.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{attr}); err != nil {
			return nil, err
		}
	}

	return signedData.Finish()
}

func (s *Signer) requestTimestamp(ctx context.Context, digest []byte) ([]byte, error) {
	request, err := timestamp.CreateRequest(bytes.NewReader(digest), &timestamp.RequestOptions{
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TSA, bytes.NewReader(request))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request (%s): %w", s.TSA, err)
	}
	req.Header.Add("Content-Type", "application/timestamp-query")
	req.Header.Add("Content-Transfer-Encoding", "binary")
	if s.TSAUsername != "" && s.TSAPassword != "" {
		req.SetBasicAuth(s.TSAUsername, s.TSAPassword)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timestamp request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New("non success response (" + strconv.Itoa(resp.StatusCode) + "): " + string(body))
	}
	return body, nil
}

// Result describes a verified signature.
type Result struct {
	Signer *x509.Certificate
	// Trusted reports whether the signer chains to the supplied roots.
	Trusted bool
	// Timestamp is the time asserted by an embedded time-stamp token, zero
	// when the signature carries none.
	Timestamp time.Time
}

// Verify checks a detached signature over data. With roots set the signer
// must chain to one of them; otherwise only the signature itself is checked.
func Verify(data, signature []byte, roots *x509.CertPool) (*Result, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature: %w", err)
	}
	p7.Content = data

	res := &Result{Signer: p7.GetOnlySigner()}
	if roots != nil {
		if err := p7.VerifyWithChain(roots); err != nil {
			return nil, fmt.Errorf("signature verification failed: %w", err)
		}
		res.Trusted = true
	} else if err := p7.Verify(); err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	for _, s := range p7.Signers {
		for _, attr := range s.UnauthenticatedAttributes {
			if !attr.Type.Equal(OIDTimeStampToken) {
				continue
			}
			ts, err := timestamp.Parse(attr.Value.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse timestamp: %w", err)
			}
			h := ts.HashAlgorithm.New()
			h.Write(s.EncryptedDigest)
			if !bytes.Equal(h.Sum(nil), ts.HashedMessage) {
				return nil, errors.New("timestamp hash does not match")
			}
			res.Timestamp = ts.Time
		}
	}
	return res, nil
}
