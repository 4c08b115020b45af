package config

type ServiceConfig struct {
	Name        string        `yaml:"name"`
	Environment string        `yaml:"environment"`
	Version     string        `yaml:"version"`
	ClientURL   string        `yaml:"client_url"`
	KISPG       KISPGConfig   `yaml:"kispg"`
	Payment     PaymentConfig `yaml:"payment"`
}

// KISPGConfig holds the KISPG merchant credentials and endpoints.
type KISPGConfig struct {
	MID         string `yaml:"mid"`
	MerchantKey string `yaml:"merchant_key"`
	APIBaseURL  string `yaml:"api_base_url"`
	// ReturnURL is where the gateway redirects the browser after payment.
	ReturnURL string `yaml:"return_url"`
	// NotifyURL is the server-to-server webhook endpoint registered with KISPG.
	NotifyURL string `yaml:"notify_url"`
}

// PaymentConfig holds the enrollment payment policy knobs.
type PaymentConfig struct {
	// WindowMinutes is the hard payment deadline measured from enrollment creation.
	WindowMinutes int `yaml:"window_minutes"`
	// LockerFee is the flat per-enrollment locker fee in KRW.
	LockerFee int64 `yaml:"locker_fee"`
	// LockerTotalPerGender sizes each gender's locker pool on first boot.
	LockerTotalPerGender int `yaml:"locker_total_per_gender"`
	// PollMaxAttempts / PollIntervalMs cap the client status poll loop.
	PollMaxAttempts int `yaml:"poll_max_attempts"`
	PollIntervalMs  int `yaml:"poll_interval_ms"`
	// SweepSpec is the cron spec for the expiration sweep.
	SweepSpec string `yaml:"sweep_spec"`
	// VerifyRetries bounds gateway verification retries per confirmation signal.
	VerifyRetries int `yaml:"verify_retries"`
}
