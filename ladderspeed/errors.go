package ladderspeed

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrUploadTimeout  = errors.New("upload timed out")
	ErrTransferStatus = errors.New("unexpected HTTP status")
)

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Wrap(ErrTransferStatus, fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	return nil
}
