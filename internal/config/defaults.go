package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds:  30,
			PollIntervalSeconds: 1,
			BackoffSeconds:      5,
		},
		Relay: RelayConfig{
			CorrelatePolicy: "last",
			HistoryEnabled:  false,
			HistoryDBPath:   "~/.chatbridge/history.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
		},
	}
}
