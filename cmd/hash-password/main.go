// Command hash-password prints the argon2id hash to put in PIXCHECKOUT_ADMIN_PASSWORD_HASH.
// The password is read from the first line of stdin so it stays out of shell history.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/pixcheckout-backend/pkg/config"
	"github.com/angelmondragon/pixcheckout-backend/pkg/security"
)

func main() {
	_ = godotenv.Load()

	var cfg config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		exit("load argon2 settings: %v", err)
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		exit("read password from stdin: %v", err)
	}
	password := strings.TrimRight(line, "\r\n")

	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		exit("hash password: %v", err)
	}
	fmt.Println(hash)
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
