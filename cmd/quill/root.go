package main

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eringen/quill"
	"github.com/eringen/quill/content"
)

// cli holds state shared by every subcommand. Configuration is resolved
// once in the root's PersistentPreRunE.
type cli struct {
	getenv     func(string) string
	now        func() time.Time
	cfgFile    string
	contentDir string

	cfg    quill.SiteConfig
	logger *log.Logger
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	c := &cli{getenv: getenv, now: time.Now}
	root := &cobra.Command{
		Use:   "quill",
		Short: "File-based publishing for posts, events, creative work and tasks",
		Long: `quill serves a directory of front-matter Markdown documents as a JSON API,
writes new documents locally or to GitHub, and lints hand-written files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default ./quill.yaml)")
	root.PersistentFlags().StringVar(&c.contentDir, "content", "", "content root (overrides content_dir)")

	root.AddCommand(
		c.serveCmd(),
		c.listCmd(),
		c.newCmd(),
		c.checkCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	c.logger = log.New("quill")
	c.logger.SetOutput(cmd.ErrOrStderr())

	cfg, used, err := loadConfig(c.cfgFile, c.getenv)
	if err != nil {
		return err
	}
	if c.contentDir != "" {
		cfg.ContentDir = c.contentDir
	}
	if used != "" {
		c.logger.Infof("using config file %s", used)
	}
	c.cfg = cfg
	return nil
}

func (c *cli) repository() *content.Repository {
	return content.NewRepository(c.cfg.ContentDir,
		content.WithLogger(c.logger),
		content.WithClock(c.now),
	)
}

var titleCaser = cases.Title(language.English)

// kindLabel names a kind for humans, e.g. "Posts".
func kindLabel(k content.Kind) string {
	return titleCaser.String(k.Dir())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quill version",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quill %s\n", version)
		},
	}
}
