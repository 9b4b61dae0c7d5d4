package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TFMV/safewalk/walk"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd scans a directory tree with the hardened walker.
var rootCmd = &cobra.Command{
	Use:   "safewalk [flags] <path>",
	Short: "Security-hardened directory traversal",
	Long: `safewalk enumerates regular files under a root directory while defending
against symlink path traversal, hardlink duplicates, unbounded recursion,
and I/O-based denial of service.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable all output except errors")

	rootCmd.Flags().Float64("rate", 10.0, "Maximum processing rate in MB/s")
	rootCmd.Flags().Duration("timeout", 0, "Maximum walk duration (0 uses the 1h default)")
	rootCmd.Flags().Int("max-depth", walk.NoDepthLimit, "Maximum descent depth (-1 = unbounded, 0 = root only)")
	rootCmd.Flags().Int("max-unique-files", 1_000_000, "Hardlink dedup cache capacity")
	rootCmd.Flags().Bool("follow-symlinks", false, "Follow symbolic links (targets must stay inside root)")
	rootCmd.Flags().Bool("deterministic", true, "Sort directory entries for reproducible order")
	rootCmd.Flags().Bool("show-skipped", false, "Report every skipped entry with its reason")
	rootCmd.Flags().String("format", "text", "Output format (text|json)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.PersistentFlags().Lookup("silent"))
	viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("max-depth", rootCmd.Flags().Lookup("max-depth"))
	viper.BindPFlag("max-unique-files", rootCmd.Flags().Lookup("max-unique-files"))
	viper.BindPFlag("follow-symlinks", rootCmd.Flags().Lookup("follow-symlinks"))
	viper.BindPFlag("deterministic", rootCmd.Flags().Lookup("deterministic"))
	viper.BindPFlag("show-skipped", rootCmd.Flags().Lookup("show-skipped"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".safewalk" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".safewalk")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// buildLogger mirrors the walker's logging levels onto the CLI flags.
func buildLogger() *zap.Logger {
	var cfg zap.Config
	switch {
	case viper.GetBool("silent"):
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case viper.GetBool("verbose"):
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, _ := cfg.Build()
	return logger
}

// walkConfigFromFlags assembles the engine Config shared by scan and audit.
func walkConfigFromFlags(root string, logger *zap.Logger) (walk.Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return walk.Config{}, fmt.Errorf("resolving %s: %w", root, err)
	}

	cfg := walk.NewConfig(abs)
	cfg.MaxRateMBPerSec = viper.GetFloat64("rate")
	if d := viper.GetDuration("timeout"); d > 0 {
		cfg.Timeout = d
	}
	cfg.MaxDepth = viper.GetInt("max-depth")
	cfg.MaxUniqueFiles = viper.GetInt("max-unique-files")
	cfg.FollowSymlinks = viper.GetBool("follow-symlinks")
	cfg.Deterministic = viper.GetBool("deterministic")
	cfg.Logger = logger
	return cfg, nil
}

func runScan(root string) error {
	logger := buildLogger()
	defer logger.Sync()

	cfg, err := walkConfigFromFlags(root, logger)
	if err != nil {
		return err
	}

	jsonOut := viper.GetString("format") == "json"
	silent := viper.GetBool("silent")

	if viper.GetBool("show-skipped") {
		cfg.OnSkip = func(path, reason string) {
			if jsonOut {
				line, _ := json.Marshal(map[string]string{"skipped": path, "reason": reason})
				fmt.Println(string(line))
			} else {
				fmt.Fprintf(os.Stderr, "skipped %s (%s)\n", path, reason)
			}
		}
	}

	w, err := walk.New(cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	for path, werr := range w.Files() {
		if werr != nil {
			if errors.Is(werr, walk.ErrTimeout) {
				fmt.Fprintf(os.Stderr, "walk timed out after %s\n", w.Stats().TimeElapsed)
			}
			return werr
		}
		switch {
		case jsonOut:
			line, _ := json.Marshal(map[string]string{"path": path})
			fmt.Println(string(line))
		case !silent:
			fmt.Println(path)
		}
	}

	stats := w.Stats()
	if jsonOut {
		line, _ := json.Marshal(stats)
		fmt.Println(string(line))
	} else if !silent {
		fmt.Fprintln(os.Stderr, stats)
	}
	return nil
}
