// Package scheduler は通知サイクルの日次スケジュール実行を提供する。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stakahashi/technotify/internal/config"
	"github.com/stakahashi/technotify/internal/model"
)

// Job はスケジューラが起動する処理を定義する。
type Job interface {
	Run(ctx context.Context) (*model.RunReport, error)
}

// Scheduler は毎日決まった時刻（設定タイムゾーン基準）にJobを起動する。
// 実行時刻の計算は壁時計で行うため、夏時間やタイムゾーンの差異は
// time.Locationの解決に従う。
type Scheduler struct {
	job    Job
	logger *slog.Logger
	hour   int
	minute int
	loc    *time.Location
}

// New はSchedulerの新しいインスタンスを生成する。
// notificationTimeは "HH:MM" 形式、timezoneはIANAタイムゾーン名。
func New(job Job, logger *slog.Logger, notificationTime, timezone string) (*Scheduler, error) {
	hour, minute, err := config.ParseNotificationTime(notificationTime)
	if err != nil {
		return nil, fmt.Errorf("通知時刻の解析に失敗: %w", err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーンの解決に失敗: %w", err)
	}

	return &Scheduler{
		job:    job,
		logger: logger,
		hour:   hour,
		minute: minute,
		loc:    loc,
	}, nil
}

// Start はスケジュールループを開始し、ctxのキャンセルまでブロックする。
// Jobの失敗はログに記録するだけでループは継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("スケジューラを開始します",
		slog.String("notification_time", fmt.Sprintf("%02d:%02d", s.hour, s.minute)),
		slog.String("timezone", s.loc.String()),
	)

	for {
		next := s.nextRun(time.Now().In(s.loc))
		wait := time.Until(next)

		s.logger.Info("次回実行まで待機します",
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("スケジューラを停止します")
			return
		case <-timer.C:
		}

		if _, err := s.job.Run(ctx); err != nil {
			s.logger.Error("スケジュール実行が失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
}

// nextRun はnowより後の直近の実行時刻を返す。
// 当日の実行時刻をすでに過ぎている場合は翌日となる。
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
