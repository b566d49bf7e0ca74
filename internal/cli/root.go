// Package cli implements the distroinfo command.
package cli

import (
	"strings"
	"time"

	"github.com/hashicorp/distroinfo"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time.
var Version = "dev"

// EnvPrefix prefixes the environment variables overriding global flags,
// for example DISTROINFO_CACHE_DIR.
const EnvPrefix = "DISTROINFO"

// RootCmd creates the distroinfo command with all its subcommands.
func RootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "distroinfo",
		Short: "Fetch, parse and dump distroinfo metadata",
		Long: `distroinfo fetches package and release metadata spread over info files
kept in a local directory, behind an HTTP base URL or in a git repository,
merges and validates it.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			file := v.GetString("config")
			if file == "" {
				return nil
			}
			v.SetConfigFile(file)
			return errors.Wrap(v.ReadInConfig(), "reading config")
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file setting defaults for the flags below")
	flags.StringP("fetcher", "f", distroinfo.SourceRemote, "info fetcher to use: remote, git or local")
	flags.StringP("cache-dir", "C", distroinfo.DefaultCacheDir, "directory to store cached info in")
	flags.Duration("cache-ttl", distroinfo.DefaultRemoteCacheTTL, "how long cached info stays fresh, 0 disables the cache")
	flags.String("ca-file", "", "CA bundle trusted by the remote fetcher")
	flags.String("tag", "", "tag to apply to packages")
	flags.Bool("keyed", false, "key packages by project and releases by name")
	flags.String("log-level", "warn", "log level: trace, debug, info, warn or error")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// only fails on a nil flag set
	_ = v.BindPFlags(flags)

	s := &settings{v: v}
	cmd.AddCommand(fetchCmd(s), dumpCmd(s), findCmd(s), listCmd(s))
	return cmd
}

// settings resolves global options from flags, environment and config
// file, in that order of precedence.
type settings struct {
	v *viper.Viper
}

func (s *settings) logger(cmd *cobra.Command) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "distroinfo",
		Level:  hclog.LevelFromString(s.v.GetString("log-level")),
		Output: cmd.ErrOrStderr(),
	})
}

func (s *settings) sourceConfig(infoURL string) (distroinfo.SourceConfig, error) {
	cfg := distroinfo.SourceConfig{
		Type:     s.v.GetString("fetcher"),
		CacheDir: s.v.GetString("cache-dir"),
		CacheTTL: s.v.GetDuration("cache-ttl"),
		CAFile:   s.v.GetString("ca-file"),
	}
	switch cfg.Type {
	case distroinfo.SourceLocal:
		cfg.Local = infoURL
	case distroinfo.SourceGit:
		cfg.RemoteGit = infoURL
	case distroinfo.SourceRemote:
		cfg.Remote = infoURL
	default:
		return cfg, errors.Errorf("unknown fetcher %q", cfg.Type)
	}
	return cfg, nil
}

// distroInfo builds a DistroInfo for the info files found at infoURL.
func (s *settings) distroInfo(cmd *cobra.Command, infoURL string, files []string) (*distroinfo.DistroInfo, error) {
	cfg, err := s.sourceConfig(infoURL)
	if err != nil {
		return nil, err
	}
	return distroinfo.New(distroinfo.DistroInfoInput{
		InfoFiles: distroinfo.InfoFiles(files...),
		Config:    cfg,
		SourceOptions: distroinfo.SourceOptions{
			Logger: s.logger(cmd),
		},
	})
}

// getInfo fetches and parses the info of di, timing it.
func (s *settings) getInfo(cmd *cobra.Command, di *distroinfo.DistroInfo) (*distroinfo.Info, time.Duration, error) {
	start := time.Now()
	info, err := di.GetInfo(cmd.Context(), distroinfo.GetInfoInput{
		ApplyTag: s.v.GetString("tag"),
		Keyed:    s.v.GetBool("keyed"),
	})
	return info, time.Since(start), err
}

func (s *settings) info(cmd *cobra.Command, infoURL string, files []string) (*distroinfo.Info, error) {
	di, err := s.distroInfo(cmd, infoURL, files)
	if err != nil {
		return nil, err
	}
	info, _, err := s.getInfo(cmd, di)
	return info, err
}
