// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jbfp/videocaster/internal/fingerprint"
)

// newHashCmd prints the subtitle database fingerprint of each file.
func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the content fingerprint of video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bar *progressbar.ProgressBar
			if len(args) > 1 {
				bar = progressbar.NewOptions(len(args),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("Hashing"),
					progressbar.OptionClearOnFinish(),
				)
			}

			var errs []error
			for _, path := range args {
				fp, err := fingerprint.ComputeFile(path)
				if bar != nil {
					_ = bar.Add(1)
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %d  %s\n", fp.Hash, fp.Size, path)
			}
			if bar != nil {
				_ = bar.Finish()
			}
			return errors.Join(errs...)
		},
	}
}
