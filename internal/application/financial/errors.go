package financial

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/lib/pq"
)

const (
	MsgDatabaseUnreachable = "Cannot connect to database. Your backend project may be paused or deleted. Please visit your backend dashboard to check project status."
	MsgStorageUnreachable  = "Cannot connect to storage service. Your backend project may be paused or deleted. Please visit your backend dashboard to check project status."

	MsgLoadCompanies     = "Failed to load companies"
	MsgLoadBalanceSheets = "Failed to load balance sheets"
	MsgLoadDocuments     = "Failed to load documents"
	MsgLoadDocument      = "Failed to load document"
	MsgUploadDocument    = "Failed to upload document"
	MsgSaveQuery         = "Failed to save query"
	MsgLoadQueryHistory  = "Failed to load query history"
	MsgLoadMetrics       = "Failed to load financial metrics"
	MsgDeleteDocument    = "Failed to delete document"
	MsgUpdateDocument    = "Failed to update document"
)

// IsConnectivity reports whether err means the backend could not be reached,
// as opposed to the backend rejecting the request.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	// SQLSTATE class 08: connection exception
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
