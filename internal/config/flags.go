package config

import (
	"flag"
	"os"
	"time"

	"pocketledger/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path of the local SQLite database
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-x string   key prefix inside the bucket (the shared folder)
//	-i int      auto-sync debounce, seconds
//	-q int      queue drain interval, seconds
//	-n int      remote backups to keep (0 keeps everything)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in seconds and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-g", "-e", "-u", "-p", "-b", "-x", "-i", "-q", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabasePath, "d", config.DatabasePath, "path of the local database file")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Prefix, "x", config.S3Prefix, "shared folder prefix inside the bucket")

	autoSyncDebounce := fs.Int("i", int(config.AutoSyncDebounce.Seconds()), "auto-sync debounce (in seconds)")
	queueInterval := fs.Int("q", int(config.QueueInterval.Seconds()), "queue drain interval (in seconds)")

	fs.IntVar(&config.RetentionCount, "n", config.RetentionCount, "remote backups to keep")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AutoSyncDebounce = time.Duration(*autoSyncDebounce) * time.Second
	config.QueueInterval = time.Duration(*queueInterval) * time.Second
}
