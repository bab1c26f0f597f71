/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rsaustro/gpdpick/cmd/run"
	"github.com/rsaustro/gpdpick/cmd/scan"
	"github.com/rsaustro/gpdpick/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gpdpick",
	Short: "Seismic phase picking service for the RSA network.",
	Long: `gpdpick sweeps continuous waveform archives with a generalized
phase detection network and turns the class probability traces into P
and S picks. It runs as a long lived service with a REST API, or as a
one shot scan over a single time window.`,
	Run: func(cmd *cobra.Command, args []string) {
		v, _ := cmd.Flags().GetBool("version")
		if v {
			version.Print()
			return
		}
		_ = cmd.Help()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			version.Print()
		},
	}

	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(scan.Cmd)
	rootCmd.AddCommand(versionCmd)
}
