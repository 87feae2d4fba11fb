package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/sitepack/internal/profile"
)

// ModeFlags are shared by every command that runs a build.
type ModeFlags struct {
	Mode   string
	Strict bool
}

// addModeFlags registers --mode and --strict-mode on fs.
func addModeFlags(fs *pflag.FlagSet) *ModeFlags {
	flags := &ModeFlags{}
	fs.StringVarP(&flags.Mode, "mode", "m", "", "Build mode: development or production (default $SITEPACK_MODE, then $NODE_ENV)")
	fs.BoolVar(&flags.Strict, "strict-mode", false, "Reject unknown build modes instead of falling back to development")
	return flags
}

// addServerFlags binds --host and --port to the server section.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "Port to serve on (default 9000)")
	cmd.Flags().String("host", "", "Host to bind to (default localhost)")
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
}

// Profile resolves the build profile. A positional mode argument wins over
// --mode, which wins over the environment.
func (f *ModeFlags) Profile(args []string) (profile.BuildProfile, error) {
	flag := f.Mode
	if len(args) > 0 {
		if flag != "" && flag != args[0] {
			return profile.BuildProfile{}, fmt.Errorf("mode argument %q conflicts with --mode %q", args[0], flag)
		}
		flag = args[0]
	}

	mode := profile.Resolve(flag, os.LookupEnv)
	if f.Strict {
		return profile.Strict(mode)
	}
	return profile.Select(mode), nil
}
