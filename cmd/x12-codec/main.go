package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ehr/edi/internal/config"
	"github.com/ehr/edi/internal/platform/x12"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "x12-codec",
		Short:        "X12 270/271/275/278 encoder and validator",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(encodeCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "encode <270|271|275|278|278-response>",
		Short:     "Encode a JSON domain request as an enveloped X12 transaction",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"270", "271", "275", "278", "278-response"},
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			data, err := readInput(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			codec, err := newCodec(true)
			if err != nil {
				return err
			}
			out, err := encodeRequest(codec, args[0], data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("in", "-", "Request JSON file (- for stdin)")
	return cmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse and validate an X12 interchange, printing the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			typ, _ := cmd.Flags().GetString("type")
			redact, _ := cmd.Flags().GetBool("redact")
			strict, _ := cmd.Flags().GetBool("strict")

			data, err := readInput(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			codec, err := newCodec(false)
			if err != nil {
				return err
			}
			result, err := parseInput(codec, data, typ)
			if err != nil {
				return err
			}
			if redact {
				result = result.Redacted()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			if strict && !result.Valid() {
				return fmt.Errorf("transaction is invalid: %d error(s)", len(result.Errors()))
			}
			return nil
		},
	}
	cmd.Flags().String("in", "-", "X12 file (- for stdin)")
	cmd.Flags().String("type", "", "Expected transaction type (270, 271, 275 or 278)")
	cmd.Flags().Bool("redact", false, "Mask PHI elements in the output")
	cmd.Flags().Bool("strict", false, "Exit non-zero when the transaction is invalid")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize an X12 interchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			format, _ := cmd.Flags().GetString("format")
			redact, _ := cmd.Flags().GetBool("redact")

			data, err := readInput(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			codec, err := newCodec(false)
			if err != nil {
				return err
			}
			result, err := codec.Parse(data)
			if err != nil {
				return err
			}

			summary := x12.Analyze(result)
			if redact {
				summary = summary.Redacted()
			}
			out, err := renderSummary(summary, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().String("in", "-", "X12 file (- for stdin)")
	cmd.Flags().String("format", "json", "Output format: json or yaml")
	cmd.Flags().Bool("redact", false, "Mask member identifiers, names and birth dates")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the codec version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	// Stdout carries command output, so logs go to stderr.
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newCodec builds the codec from the environment. Partner ids are only
// required when the command encodes.
func newCodec(encoding bool) (*x12.Codec, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if encoding {
		if err := cfg.RequirePartners(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	logger := newLogger(cfg)

	numbers, err := cfg.ControlNumbers()
	if err != nil {
		return nil, err
	}
	return x12.NewCodec(cfg.Envelope(), numbers, logger, x12.WithLimits(cfg.Limits()))
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// encodeRequest decodes a JSON request of the given kind and encodes it.
func encodeRequest(codec *x12.Codec, kind string, data []byte) (string, error) {
	req, err := x12.NewRequest(kind)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return "", fmt.Errorf("decode %s request: %w", kind, err)
	}
	tx, err := codec.Encode(req)
	if err != nil {
		return "", err
	}
	return tx.String(), nil
}

func parseInput(codec *x12.Codec, data []byte, typ string) (*x12.Result, error) {
	if typ == "" {
		return codec.Parse(data)
	}
	tt, err := x12.ParseTransactionType(typ)
	if err != nil {
		return nil, err
	}
	return codec.ParseAs(data, tt)
}

func renderSummary(s x12.Summary, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(s)
	default:
		return nil, fmt.Errorf("unknown format %q: want json or yaml", format)
	}
}
