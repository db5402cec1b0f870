package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gitlab.com/d21d3q/wmbusdecode/pkg/wmbusdecode"
)

var (
	rootCmd = &cobra.Command{
		Use:   "wmbusdecode-analyze [hex]",
		Short: "Decode Wireless M-Bus telegrams",
		Long:  "wmbusdecode-analyze decodes Wireless M-Bus telegrams using the wmbusdecode library.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := wmbusdecode.AnalyzeOptions{KeyHex: keyHex, Simulation: simulation}
			ctx := cmd.Context()
			if len(args) == 0 {
				return runInteractive(ctx, opts)
			}
			return runAnalyze(ctx, opts, args[0])
		},
	}

	keyHex     string
	simulation bool
	explain    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&keyHex, "key", "", "hex-encoded 16-byte AES key (32 hex chars)")
	rootCmd.PersistentFlags().BoolVar(&simulation, "simulation", false, "treat encrypted payloads as already decrypted (replay fixtures)")
	rootCmd.PersistentFlags().BoolVar(&explain, "explain", false, "print the byte-offset explanation trail")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func runInteractive(ctx context.Context, opts wmbusdecode.AnalyzeOptions) error {
	scanner := bufio.NewScanner(os.Stdin)
	logrus.Info("wmbusdecode analyze mode. Paste a hex telegram and press Enter (Ctrl+D to exit).")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runAnalyze(ctx, opts, line); err != nil {
			logrus.WithError(err).Error("failed to decode telegram")
		}
	}
	return scanner.Err()
}

func runAnalyze(ctx context.Context, opts wmbusdecode.AnalyzeOptions, hex string) error {
	result, err := wmbusdecode.AnalyzeHexWithOptions(ctx, hex, opts)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	if explain && result.Telegram != nil {
		for _, e := range result.Telegram.Explanations {
			fmt.Printf("%03d: %s\n", e.Offset, e.Text)
		}
	}
	return nil
}
