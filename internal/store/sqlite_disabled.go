//go:build !sqlite
// +build !sqlite

package store

import (
	"errors"

	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	return nil, errors.New(`sqlite driver not built in (rebuild with -tags sqlite, or use driver "file")`)
}
