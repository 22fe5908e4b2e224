package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixxel-company-limited/escpos-printout-server/adapter"
	"github.com/nixxel-company-limited/escpos-printout-server/codepage"
	"github.com/nixxel-company-limited/escpos-printout-server/config"
	"github.com/nixxel-company-limited/escpos-printout-server/logging"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
	"github.com/nixxel-company-limited/escpos-printout-server/render"
)

var renderFlags struct {
	cut         bool
	beep        bool
	tailingLine bool
	encoding    string
	codepage    int
	colWidth    int
	out         string
	print       bool
}

var renderCmd = &cobra.Command{
	Use:   "render <file|->",
	Short: "Encode a Printout document to ESC/POS bytes",
	Long: `render encodes one Printout document. The result is written to stdout,
to --out, or with --print to the configured printer.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var encodingsCmd = &cobra.Command{
	Use:   "encodings",
	Short: "List the text encodings accepted by the encoding option",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range codepage.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	f := renderCmd.Flags()
	f.BoolVar(&renderFlags.cut, "cut", false, "append a paper cut")
	f.BoolVar(&renderFlags.beep, "beep", false, "append a buzzer signal")
	f.BoolVar(&renderFlags.tailingLine, "tailing-line", false, "append four line feeds")
	f.StringVar(&renderFlags.encoding, "encoding", printout.DefaultEncoding, "text encoding")
	f.IntVar(&renderFlags.codepage, "codepage", printout.DefaultCodepage, "printer character code table")
	f.IntVar(&renderFlags.colWidth, "col-width", printout.DefaultColWidth, "characters per line")
	f.StringVarP(&renderFlags.out, "out", "o", "", "write the bytes to this file instead of stdout")
	f.BoolVar(&renderFlags.print, "print", false, "send the bytes to the configured printer")
}

// flagOverrides returns only the options set on the command line
func flagOverrides(cmd *cobra.Command) printout.Overrides {
	var ov printout.Overrides
	f := cmd.Flags()
	if f.Changed("cut") {
		ov.Cut = printout.Bool(renderFlags.cut)
	}
	if f.Changed("beep") {
		ov.Beep = printout.Bool(renderFlags.beep)
	}
	if f.Changed("tailing-line") {
		ov.TailingLine = printout.Bool(renderFlags.tailingLine)
	}
	if f.Changed("encoding") {
		ov.Encoding = printout.String(renderFlags.encoding)
	}
	if f.Changed("codepage") {
		ov.Codepage = printout.Int(renderFlags.codepage)
	}
	if f.Changed("col-width") {
		ov.ColWidth = printout.Int(renderFlags.colWidth)
	}
	return ov
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderFlags.print && renderFlags.out != "" {
		return fmt.Errorf("--out and --print are mutually exclusive")
	}
	if renderFlags.codepage < 0 || renderFlags.codepage > 255 {
		return fmt.Errorf("codepage must be within 0-255, got %d", renderFlags.codepage)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(config.LoggingConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: "stderr"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	out, err := render.New(cfg.Print, nil, logger).Render(in, flagOverrides(cmd))
	if err != nil {
		return err
	}
	if len(out) == 0 {
		logger.Warn("Document has no Printout root, nothing to output")
		return nil
	}

	switch {
	case renderFlags.print:
		device, err := adapter.New(cfg.Printer, logger)
		if err != nil {
			return fmt.Errorf("create printer adapter: %w", err)
		}
		defer device.Close()
		if err := device.Open(); err != nil {
			return err
		}
		_, err = device.Write(out)
		return err
	case renderFlags.out != "":
		return os.WriteFile(renderFlags.out, out, 0o644)
	default:
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
}
