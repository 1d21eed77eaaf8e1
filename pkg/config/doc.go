/*
Package config loads driftd's configuration from a YAML file, falling
back to built-in defaults for anything the file doesn't set. Cobra flags
on cmd/driftd are applied on top of whatever Load returns, so the
precedence is: flag > file > default.

Example file:

	dataDir: /var/lib/driftd
	listen: ":7070"
	peers:
	  - "10.0.0.2:7070"
	  - "10.0.0.3:7070"
	pollIntervalMs: 5000
	debounceMs: 200
	logLevel: info
	logJSON: true

Usage:

	cfg, err := config.Load(os.Getenv("DRIFTD_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	if listen, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
		cfg.Listen = listen
	}
*/
package config
