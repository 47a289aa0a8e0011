package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/wsh/core"
	"github.com/josephlewis42/wsh/core/config"
	"github.com/josephlewis42/wsh/core/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	commandLine string

	// exitStatus is the interpreter's status, reported after cobra returns.
	exitStatus int
)

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "wsh")
}

func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		// An explicit path must exist, the default one is optional.
		if !cmd.Flags().Changed("config") {
			return config.Default(), nil
		}
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wsh",
	Short: "A job control shell",
	Long: `wsh reads pipelines of commands, one per line, and runs them in the
foreground or, when the line contains a lone &, in the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		appLog, logCloser, err := logger.FromConfig(cfg)
		if err != nil {
			return err
		}
		defer logCloser.Close()

		shell, err := core.NewShell(cfg, core.OSStdio(), appLog)
		if err != nil {
			return err
		}
		defer shell.Close()

		if cmd.Flags().Changed("command") {
			exitStatus = shell.RunCommand(commandLine)
		} else {
			exitStatus = shell.Run()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigDir(), "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single line and exit with its status")
}
