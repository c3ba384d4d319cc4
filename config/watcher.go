package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/TMSolution/ast-mongo/log"
)

// Watcher 监听配置文件变更并在重新加载成功后通知回调。
// 解析或校验失败时保留上一份有效配置，只记录告警
type Watcher struct {
	filePath string
	watcher  *fsnotify.Watcher
	logger   log.Logger

	mu       sync.RWMutex
	onChange []func(*Options) error
	once     sync.Once
}

func NewWatcher(filePath string, logger log.Logger) (*Watcher, error) {
	if filePath == "" {
		return nil, errors.New("file path is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file path")
	}

	return &Watcher{
		filePath: absPath,
		logger:   logger,
	}, nil
}

// OnChange 注册变更回调
func (w *Watcher) OnChange(fn func(*Options) error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onChange = append(w.onChange, fn)
}

// Watch 启动监听，只初始化一次
func (w *Watcher) Watch() error {
	var initErr error
	w.once.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			initErr = errors.Wrap(err, "failed to create file watcher")
			return
		}
		w.watcher = watcher

		go func() {
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&fsnotify.Write == fsnotify.Write && filepath.Clean(event.Name) == w.filePath {
						w.reload()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					w.logger.Warn("config watcher error", "error", err)
				}
			}
		}()

		if err := watcher.Add(filepath.Dir(w.filePath)); err != nil {
			initErr = errors.Wrap(err, "failed to watch config directory")
		}
	})
	return initErr
}

func (w *Watcher) reload() {
	options, err := Load(w.filePath)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous configuration", "file", w.filePath, "error", err)
		return
	}

	w.mu.RLock()
	handlers := make([]func(*Options) error, len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(options); err != nil {
			w.logger.Warn("config change handler failed", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
