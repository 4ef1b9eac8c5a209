package capture

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/zoza1982/netscanner/architecture"
)

// ErrorType classifies capture failures for display.
type ErrorType int

const (
	ErrorOther ErrorType = iota
	ErrorPermission
	ErrorLinkType
)

type CaptureError struct {
	err     error
	errType ErrorType
}

func NewCaptureError(errType ErrorType, err error) CaptureError {
	return CaptureError{err: err, errType: errType}
}

func (e CaptureError) Error() string {
	return e.err.Error()
}

func (e CaptureError) Unwrap() error {
	return e.err
}

// GetErrorType returns the capture error type if err contains a CaptureError,
// or ErrorOther otherwise.
func GetErrorType(err error) ErrorType {
	var ce CaptureError
	if ok := errors.As(err, &ce); ok {
		return ce.errType
	}
	return ErrorOther
}

// wrapOpenError classifies a handle-creation failure and attaches a
// remediation hint suitable for the error footer.
func wrapOpenError(err error, ifaceName string) error {
	if strings.Contains(err.Error(), "Operation not permitted") ||
		strings.Contains(err.Error(), "Permission denied") {
		var hint string
		if os.Geteuid() == 0 {
			hint = "Although you are running as root, this process lacks the CAP_NET_RAW capability. " +
				"You may be in a restricted environment which disallows packet capture, even as the root user."
		} else {
			hint = "Packet capture needs the CAP_NET_RAW capability. You are running as an unprivileged (non-root) user; " +
				"try using \"sudo\", or grant the capability with \"setcap cap_net_raw+ep\"."
		}
		return NewCaptureError(ErrorPermission,
			errors.Wrapf(err, "insufficient permissions to capture on %s. %s", ifaceName, hint))
	}

	if strings.Contains(err.Error(), "Function not implemented") {
		// Usually a binary built for a different architecture than the host.
		arch := architecture.GetCanonicalArch()
		return NewCaptureError(ErrorOther,
			errors.Wrapf(err, "unable to read from %s. This binary was built for %s; "+
				"if your host architecture differs, install a build for your architecture", ifaceName, arch))
	}

	return NewCaptureError(ErrorOther,
		errors.Wrap(err, fmt.Sprintf("failed to open capture on %s", ifaceName)))
}
