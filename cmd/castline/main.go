// Command castline はID・権限管理APIサーバーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバー（既定）
//	migrate      データベースマイグレーション
//	healthcheck  /health の疎通確認（distroless用）
//	watch TOKEN  セッションの権限判定の変化を監視する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/castline/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "castline: %v\n", err)
		os.Exit(1)
	}
}
