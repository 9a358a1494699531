package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/digitorus/pdfcert"
	"github.com/digitorus/pdfcert/config"
	"github.com/digitorus/pdfcert/fonts"
	"github.com/digitorus/pdfcert/geom"
	"github.com/digitorus/pdfcert/names"
	"github.com/digitorus/pdfcert/output"
	"github.com/digitorus/pdfcert/raster"
	"github.com/digitorus/pdfcert/seal"
)

// GenerateOptions holds everything a generate run needs.
type GenerateOptions struct {
	Template string
	Names    string
	Rect     geom.Rect

	// Size of the rendering Rect was selected on; zero means page pixels.
	SpaceWidth, SpaceHeight float64

	Parent      string
	Prefix      string
	Duplicates  string
	JPEGQuality int

	Font        string
	Color       string
	HeightRatio float64
	Text        string

	Pdftoppm string

	Certificate string
	Key         string
	PKCS12      string
	Password    string
	TSA         string
	TSAUsername string
	TSAPassword string

	Verbose bool
}

// optionsFromConfig returns the options implied by the loaded settings.
func optionsFromConfig(c config.Config) GenerateOptions {
	return GenerateOptions{
		Parent:      c.Output.Parent,
		Prefix:      c.Output.Prefix,
		Duplicates:  c.Output.Duplicates,
		JPEGQuality: c.Output.JPEGQuality,
		Font:        c.Text.Font,
		Color:       c.Text.Color,
		HeightRatio: c.Text.HeightRatio,
		Text:        c.Text.Format,
		Pdftoppm:    c.Render.Pdftoppm,
		Certificate: c.Seal.Certificate,
		Key:         c.Seal.Key,
		PKCS12:      c.Seal.PKCS12,
		Password:    c.Seal.Password,
		TSA:         c.Seal.TSA,
		TSAUsername: c.Seal.TSAUsername,
		TSAPassword: c.Seal.TSAPassword,
	}
}

func GenerateCommand() {
	generateFlags := flag.NewFlagSet("generate", flag.ExitOnError)

	configPath := configFlag(generateFlags)
	var rect, space, out, prefix, duplicates, fontPath, textColor, text string
	var certPath, keyPath, pkcs12Path, password, tsa, pdftoppm string
	var ratio float64
	var quality int
	var verbose bool

	generateFlags.StringVar(&rect, "rect", "", "Text area as left,top,right,bottom (required)")
	generateFlags.StringVar(&space, "space", "", "Size of the rendering the area was selected on, as width,height (default: page size)")
	generateFlags.StringVar(&out, "out", ".", "Directory in which the numbered run directory is created")
	generateFlags.StringVar(&prefix, "prefix", output.DefaultPrefix, "Name of the run directories")
	generateFlags.StringVar(&duplicates, "duplicates", "overwrite", "What to do with repeated names (overwrite, suffix)")
	generateFlags.IntVar(&quality, "quality", 0, "Store pages as JPEG with this quality (1-100) instead of lossless PNG")
	generateFlags.StringVar(&fontPath, "font", "", "TrueType or OpenType font file (default: Go Bold)")
	generateFlags.StringVar(&textColor, "color", "#000000", "Text colour as #rrggbb")
	generateFlags.Float64Var(&ratio, "ratio", 1.5, "Text area height divided by the font size")
	generateFlags.StringVar(&text, "text", pdfcert.DefaultText, "Text to draw; supports {{Name}}, {{Initials}}, {{Date}}, {{Index}} and {{Total}}")
	generateFlags.StringVar(&pdftoppm, "pdftoppm", "pdftoppm", "Path to the pdftoppm binary")
	generateFlags.StringVar(&certPath, "cert", "", "Seal certificates with this PEM certificate (chain may follow)")
	generateFlags.StringVar(&keyPath, "key", "", "PEM private key for -cert")
	generateFlags.StringVar(&pkcs12Path, "pkcs12", "", "Seal certificates with this PKCS#12 identity")
	generateFlags.StringVar(&password, "password", "", "Password for -pkcs12")
	generateFlags.StringVar(&tsa, "tsa", "", "URL of an RFC 3161 Time-Stamp Authority for sealed certificates")
	generateFlags.BoolVar(&verbose, "v", false, "Log rendering details")

	generateFlags.Usage = func() {
		fmt.Printf("Usage: %s generate [options] -rect l,t,r,b <template.pdf|png|jpg> <names.txt>\n\n", os.Args[0])
		fmt.Println("Generate one single-page PDF certificate per name")
		fmt.Println("\nOptions:")
		generateFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s generate -rect 100,100,300,160 template.pdf names.txt\n", os.Args[0])
		fmt.Printf("  %s generate -rect 50,50,150,80 -space 500,600 -color \"#1a2b3c\" template.pdf names.txt\n", os.Args[0])
		fmt.Printf("  %s generate -rect 100,100,300,160 -cert office.pem -key office.key template.pdf names.txt\n", os.Args[0])
	}

	if err := generateFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse generate flags: %v", err)
		osExit(1)
		return
	}
	if generateFlags.NArg() < 2 || rect == "" {
		generateFlags.Usage()
		osExit(1)
		return
	}

	loadConfig(*configPath)
	opts := optionsFromConfig(config.Settings)
	opts.Template = generateFlags.Arg(0)
	opts.Names = generateFlags.Arg(1)
	opts.Verbose = verbose

	var err error
	if opts.Rect, err = parseRect(rect); err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	if space != "" {
		if opts.SpaceWidth, opts.SpaceHeight, err = parseSize(space); err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}

	// Flags given on the command line win over the config file.
	generateFlags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			opts.Parent = out
		case "prefix":
			opts.Prefix = prefix
		case "duplicates":
			opts.Duplicates = duplicates
		case "quality":
			opts.JPEGQuality = quality
		case "font":
			opts.Font = fontPath
		case "color":
			opts.Color = textColor
		case "ratio":
			opts.HeightRatio = ratio
		case "text":
			opts.Text = text
		case "pdftoppm":
			opts.Pdftoppm = pdftoppm
		case "cert":
			opts.Certificate = certPath
		case "key":
			opts.Key = keyPath
		case "pkcs12":
			opts.PKCS12 = pkcs12Path
		case "password":
			opts.Password = password
		case "tsa":
			opts.TSA = tsa
		}
	})

	res, err := Generate(context.Background(), opts, os.Stdout)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	log.Printf("%d files written to %s", len(res.Files), res.Dir)
}

// Generate runs a certificate job and prints one line per finished name to w.
func Generate(ctx context.Context, opts GenerateOptions, w io.Writer) (*pdfcert.Result, error) {
	list, err := names.ReadFile(opts.Names)
	if err != nil {
		return nil, err
	}

	var logger *log.Logger
	if opts.Verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	tpl, err := pdfcert.OpenTemplate(opts.Template,
		pdfcert.WithRasterizer(&raster.Poppler{Binary: opts.Pdftoppm, Logger: logger}),
		pdfcert.WithTemplateLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tpl.Close(); err != nil {
			log.Printf("Warning: failed to close template: %v", err)
		}
	}()

	policy, err := output.ParseDuplicatePolicy(opts.Duplicates)
	if err != nil {
		return nil, err
	}

	rect := opts.Rect
	job := pdfcert.NewJob(tpl, &rect).
		OutputDir(opts.Parent, opts.Prefix).
		Duplicates(policy).
		HeightRatio(opts.HeightRatio).
		Text(opts.Text).
		JPEGQuality(opts.JPEGQuality).
		Logger(logger)

	if opts.SpaceWidth > 0 && opts.SpaceHeight > 0 {
		job.SelectionSpace(opts.SpaceWidth, opts.SpaceHeight)
	}
	if opts.Font != "" {
		f, err := fonts.Load(opts.Font)
		if err != nil {
			return nil, err
		}
		job.Font(f)
	}
	if opts.Color != "" {
		c, err := config.ParseColor(opts.Color)
		if err != nil {
			return nil, err
		}
		job.Color(c)
	}

	signer, err := loadSigner(opts)
	if err != nil {
		return nil, err
	}
	if signer != nil {
		job.Seal(signer)
	}

	run := job.Start(ctx, list)
	for p := range run.Progress() {
		_, _ = fmt.Fprintf(w, "[%d/%d] %s\n", p.Completed, p.Total, p.Path)
	}
	return run.Wait()
}

func loadSigner(opts GenerateOptions) (*seal.Signer, error) {
	var (
		signer *seal.Signer
		err    error
	)
	switch {
	case opts.PKCS12 != "":
		signer, err = seal.LoadPKCS12(opts.PKCS12, opts.Password)
	case opts.Certificate != "" || opts.Key != "":
		signer, err = seal.LoadPEM(opts.Certificate, opts.Key)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	signer.TSA = opts.TSA
	signer.TSAUsername = opts.TSAUsername
	signer.TSAPassword = opts.TSAPassword
	return signer, nil
}
