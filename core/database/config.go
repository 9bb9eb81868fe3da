package database

// Config holds connection settings for the try-on history database.
// It is built from the core configuration at the bootstrap boundary so that
// this package never has to import core config.
type Config struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConnections int
}
