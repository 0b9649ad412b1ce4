package worker

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/tasks"
)

// idleSweepSchedule 是闲置房间扫描的调度周期。
const idleSweepSchedule = "@every 10m"

// Server 打包后台任务的消费端和周期调度器。
type Server struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
}

// NewServer 创建后台任务服务。
func NewServer(redisOpt asynq.RedisClientOpt, handlers *Handlers) *Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			tasks.QueueDefault: 3,
			tasks.QueueLow:     1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRoomCleanup, handlers.HandleRoomCleanup)
	mux.HandleFunc(tasks.TypeIdleSweep, handlers.HandleIdleSweep)

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Server{srv: srv, mux: mux, scheduler: scheduler}
}

// Start 启动任务消费和周期调度，非阻塞。
func (s *Server) Start() error {
	if _, err := s.scheduler.Register(idleSweepSchedule, tasks.NewIdleSweepTask(), asynq.Queue(tasks.QueueLow)); err != nil {
		return fmt.Errorf("register idle sweep schedule: %w", err)
	}
	if err := s.srv.Start(s.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	if err := s.scheduler.Start(); err != nil {
		s.srv.Shutdown()
		return fmt.Errorf("start asynq scheduler: %w", err)
	}
	logrus.Info("Background worker started")
	return nil
}

// Shutdown 停止调度并等待在途任务结束。
func (s *Server) Shutdown() {
	s.scheduler.Shutdown()
	s.srv.Shutdown()
	logrus.Info("Background worker stopped")
}
