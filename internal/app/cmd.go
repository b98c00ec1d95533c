package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はサーバーモード（スケジューラ+監視用HTTP）で起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモード（スケジューラのみ）で起動することを示す。
	CommandWorker Command = "worker"
	// CommandNotify は通知サイクルを1回だけ実行することを示す。
	CommandNotify Command = "notify"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はデフォルト情報源の初期投入を実行することを示す。
	CommandSeed Command = "seed"
	// CommandReset は通知履歴の全削除を実行することを示す。
	CommandReset Command = "reset"
	// CommandDisable は指定URLの情報源を無効化することを示す。
	CommandDisable Command = "disable"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "worker":
		return CommandWorker
	case "notify":
		return CommandNotify
	case "migrate":
		return CommandMigrate
	case "seed":
		return CommandSeed
	case "reset":
		return CommandReset
	case "disable":
		return CommandDisable
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
