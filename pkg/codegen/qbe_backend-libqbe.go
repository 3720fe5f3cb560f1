//go:build !windows

package codegen

import (
	"bytes"
	"strings"

	"tlog.app/go/errors"

	"github.com/xplshn/r9cc/pkg/config"
	"modernc.org/libqbe"
)

func compileIL(qbeIR string, cfg *config.Config) (*bytes.Buffer, error) {
	var asmBuf bytes.Buffer
	err := libqbe.Main(cfg.QbeTarget, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil)
	if err != nil {
		return nil, errors.Wrap(err, "libqbe: target %v\n--- generated IL ---\n%s", cfg.QbeTarget, qbeIR)
	}
	return &asmBuf, nil
}
