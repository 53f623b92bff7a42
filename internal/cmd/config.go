package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recapd/recap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		if used := viper.ConfigFileUsed(); used != "" {
			cmd.Println(used)
			return
		}
		cmd.Println(config.ConfigFile())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cmd.Printf("recording.enabled        %v\n", cfg.Recording.Enabled)
		cmd.Printf("recording.fps            %d\n", cfg.Recording.FPS)
		cmd.Printf("recording.include_cursor %v\n", cfg.Recording.IncludeCursor)
		cmd.Printf("recording.monitor_index  %d\n", cfg.Recording.MonitorIndex)
		cmd.Printf("audio.system_audio       %v\n", cfg.Audio.SystemAudio)
		cmd.Printf("audio.microphone         %v\n", cfg.Audio.Microphone)
		cmd.Printf("audio.sample_rate        %d\n", cfg.Audio.SampleRate)
		cmd.Printf("bluetooth.enabled        %v\n", cfg.Bluetooth.Enabled)
		cmd.Printf("bluetooth.scan_interval  %v\n", cfg.Bluetooth.ScanInterval())
		cmd.Printf("bluetooth.anonymize      %v\n", cfg.Bluetooth.Anonymize)
		cmd.Printf("output.directory         %s\n", cfg.Output.ResolveOutputDir())
		cmd.Printf("output.format            %s\n", cfg.Output.Format)
		cmd.Printf("privacy.auto_delete_days %d\n", cfg.Privacy.AutoDeleteDays)
		cmd.Printf("privacy.require_consent  %v\n", cfg.Privacy.RequireConsent)
		cmd.Printf("logging.enabled          %v\n", cfg.Logging.Enabled)
		cmd.Printf("logging.level            %s\n", cfg.Logging.Level)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
