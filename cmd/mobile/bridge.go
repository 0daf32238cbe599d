package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kimhsiao/fieldcapture/backend/internal/app"
	"github.com/kimhsiao/fieldcapture/backend/internal/config"
	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/services"
)

var (
	mu       sync.Mutex
	instance *app.App
	lastErr  string
	lastMu   sync.RWMutex
)

func setLastError(err error) {
	lastMu.Lock()
	defer lastMu.Unlock()
	if err == nil {
		lastErr = ""
		return
	}
	lastErr = err.Error()
}

func getLastError() string {
	lastMu.RLock()
	defer lastMu.RUnlock()
	return lastErr
}

// initialize builds the app. The data directory is supplied by the host
// because the sandbox path differs per platform. Calling it twice is a no-op.
func initialize(configPath, dataDir string) error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		setLastError(err)
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	a, err := app.New(cfg)
	if err != nil {
		setLastError(err)
		return err
	}
	if err := a.Start(context.Background()); err != nil {
		a.Close()
		setLastError(err)
		return err
	}
	instance = a
	return nil
}

func shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		if err := instance.Close(); err != nil {
			logging.Error("Failed to close app", err)
		}
		instance = nil
	}
}

func current() (*app.App, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return nil, errors.New(errors.ErrInternal, "not initialized")
	}
	return instance, nil
}

type errorReply struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func marshalReply(v interface{}, err error) string {
	if err != nil {
		setLastError(err)
		var reply errorReply
		reply.Error.Code = string(errors.CodeOf(err))
		reply.Error.Message = err.Error()
		data, _ := json.Marshal(reply)
		return string(data)
	}
	data, merr := json.Marshal(v)
	if merr != nil {
		return marshalReply(nil, errors.Wrap(errors.ErrInternal, "failed to serialize reply", merr))
	}
	return string(data)
}

type recordPayload struct {
	services.CaptureInput
	Photos []string `json:"photos"` // data URLs or bare base64
}

func saveRecordJSON(payload string) string {
	a, err := current()
	if err != nil {
		return marshalReply(nil, err)
	}

	var req recordPayload
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return marshalReply(nil, errors.Wrap(errors.ErrInvalid, "invalid record payload", err))
	}
	in := req.CaptureInput
	for i, p := range req.Photos {
		data, err := media.DecodeDataURL(p)
		if err != nil {
			return marshalReply(nil, errors.Wrap(errors.ErrInvalid, fmt.Sprintf("photo %d", i+1), err))
		}
		in.Photos = append(in.Photos, data)
	}

	return marshalReply(a.Capture.SaveRecord(context.Background(), in))
}

func syncAllJSON() string {
	a, err := current()
	if err != nil {
		return marshalReply(nil, err)
	}
	return marshalReply(a.Capture.SyncAll(context.Background()))
}

func pendingCountJSON() string {
	a, err := current()
	if err != nil {
		return marshalReply(nil, err)
	}
	return marshalReply(a.Capture.GetPendingCount(context.Background()))
}

// hasDataToSync returns 1 when something is queued, 0 when not and -1 on error.
func hasDataToSync() int {
	a, err := current()
	if err != nil {
		setLastError(err)
		return -1
	}
	has, err := a.Capture.HasDataToSync(context.Background())
	if err != nil {
		setLastError(err)
		return -1
	}
	if has {
		return 1
	}
	return 0
}

func setOnline(online bool) {
	a, err := current()
	if err != nil {
		setLastError(err)
		return
	}
	a.Coordinator.SetOnline(online)
}
