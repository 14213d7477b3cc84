// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/asticode/go-astisub"
	"github.com/spf13/cobra"

	"github.com/jbfp/videocaster/internal/subtitles"
)

func newVTTCmd() *cobra.Command {
	var (
		check   bool
		charset string
	)

	cmd := &cobra.Command{
		Use:   "vtt [FILE]",
		Short: "Convert SRT subtitles to WebVTT",
		Long:  "Reads SRT from FILE or stdin and writes WebVTT to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0]) // #nosec G304 -- user supplied input file
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read subtitles: %w", err)
			}
			vtt := subtitles.NewConverter().Convert(subtitles.DecodeText(data, charset))

			if check {
				subs, err := astisub.ReadFromWebVTT(strings.NewReader(vtt))
				if err != nil {
					return fmt.Errorf("converted output is not valid WebVTT: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d cues\n", len(subs.Items))
			}

			_, err = io.WriteString(cmd.OutOrStdout(), vtt)
			return err
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "parse the output as WebVTT and report the cue count")
	cmd.Flags().StringVar(&charset, "charset", "", "input encoding when it is not UTF-8 (default windows-1252)")
	return cmd
}
