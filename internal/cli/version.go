package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	// Version must work without a readable config.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:   Version,
			Commit:    Commit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
		}
		return render(cmd.OutOrStdout(), info, func(w io.Writer) error {
			fmt.Fprintf(w, "startify %s\n", info.Version)
			if Verbose() {
				fmt.Fprintf(w, "  commit:     %s\n", info.Commit)
				fmt.Fprintf(w, "  built:      %s\n", info.BuildDate)
				fmt.Fprintf(w, "  go version: %s\n", info.GoVersion)
				fmt.Fprintf(w, "  platform:   %s/%s\n", info.OS, info.Arch)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
