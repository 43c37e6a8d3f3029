package configuration

type Configuration struct {
	HttpAddr          string `usage:"HTTP address"`
	Dir               string `usage:"data directory"`
	Format            string `usage:"file format for data and indexes: json or msgpack"`
	Buckets           int    `usage:"number of hash buckets per collection"`
	IndexOrder        int    `usage:"maximum number of keys per index node"`
	BackupDir         string `usage:"folder inside the data directory that holds the transaction backup"`
	ApiKey            string `usage:"API key, authentication is disabled when empty"`
	ApiSecret         string `usage:"API secret"`
	LogLevel          string `usage:"log level: debug, info, warn or error"`
	LogJson           bool   `usage:"log in JSON format"`
	EnableCompression bool   `usage:"gzip responses when the client accepts it"`
	Version           bool   `usage:"show version and exit"`
	ShowBanner        bool   `usage:"show big banner"`
	ShowConfig        bool   `usage:"print config"`
}

func Default() *Configuration {
	return &Configuration{
		HttpAddr:          "127.0.0.1:8080",
		Dir:               "data",
		Format:            "json",
		Buckets:           100,
		IndexOrder:        3,
		BackupDir:         "__backup",
		LogLevel:          "info",
		EnableCompression: true,
		ShowBanner:        true,
	}
}
