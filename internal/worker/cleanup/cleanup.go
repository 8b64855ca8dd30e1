// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れのセッション・メール確認トークン・LinkedIn連携トークンを
// 定期バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れ認証データの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:     db,
		logger: logger,
	}
}

// cleanupTargets は削除対象テーブルと条件の一覧。
// 全テーブルとも expires_at を過ぎた行が削除対象となる。
var cleanupTargets = []struct {
	name  string
	query string
}{
	{"sessions", `DELETE FROM sessions WHERE expires_at < now()`},
	{"verification_tokens", `DELETE FROM verification_tokens WHERE expires_at < now()`},
	{"linkedin_connections", `DELETE FROM linkedin_connections WHERE expires_at < now()`},
}

// Run は期限切れの行を全対象テーブルから削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
// 1テーブルの失敗で残りの処理を止めない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	var firstErr error
	total := int64(0)

	for _, target := range cleanupTargets {
		result, err := j.db.ExecContext(ctx, target.query)
		if err != nil {
			j.logger.Error("クリーンアップジョブの実行に失敗しました",
				slog.String("table", target.name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to clean up %s: %w", target.name, err)
			}
			continue
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			j.logger.Error("削除件数の取得に失敗しました",
				slog.String("table", target.name),
				slog.String("error", err.Error()),
			)
			continue
		}

		total += deleted
		j.logger.Info("期限切れデータを削除しました",
			slog.String("table", target.name),
			slog.Int64("deleted_count", deleted),
		)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("total_deleted", total),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return firstErr
}

// RunLoop は指定間隔でRunを繰り返し実行する。
// 起動直後に1回実行し、以降はintervalごとに実行する。
// コンテキストのキャンセルで停止する。
func (j *CleanupJob) RunLoop(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップの初回実行に失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップループを停止します")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
