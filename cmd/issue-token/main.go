// Команда issue-token выпускает токен оператора для локальной разработки.
// В рабочей среде токены выдаёт внешний сервис входа.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/magabrotheeeer/club-ledger/internal/config"
	"github.com/magabrotheeeer/club-ledger/internal/lib/jwt"
)

func main() {
	operatorID := flag.String("operator", "", "идентификатор оператора")
	role := flag.String("role", "admin", "роль: admin или coach")
	flag.Parse()

	if *operatorID == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -operator <id> [-role admin|coach]")
		os.Exit(2)
	}

	cfg := config.MustLoad()
	token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL).GenerateToken(*operatorID, *role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
