// admintoken prints credentials for the analytics admin routes: a bcrypt hash
// for ADMIN_API_KEY_HASH, or a signed admin JWT using JWT_SECRET_KEY.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sitepulse/api/config"
	"sitepulse/api/logger"
	"sitepulse/api/utils"
)

func main() {
	hashKey := flag.String("hash-key", "", "print the bcrypt hash of this API key and exit")
	subject := flag.String("subject", "", "subject of the admin JWT to mint")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of the minted JWT")
	flag.Parse()

	log := logger.New("local")
	defer log.Sync()

	if *hashKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashKey), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash API key", zap.Error(err))
		}
		fmt.Println(string(hash))
		return
	}

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	token, err := utils.GenerateAdminToken([]byte(cfg.Auth.JWTSecret), *subject, *ttl)
	if err != nil {
		log.Fatal("failed to mint admin token", zap.Error(err))
	}
	fmt.Println(token)
}
