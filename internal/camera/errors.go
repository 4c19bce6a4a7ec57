package camera

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind classifies driver failures by how the session should react.
type ErrorKind int

const (
	// KindOther is a driver or transport fault; the session is torn down.
	KindOther ErrorKind = iota
	// KindAbsent means no camera is attached. Expected and retried quietly.
	KindAbsent
	// KindBusy means another process holds the device.
	KindBusy
	// KindFile is scoped to one file or representation; the session survives.
	KindFile
)

func (k ErrorKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBusy:
		return "busy"
	case KindFile:
		return "file"
	default:
		return "other"
	}
}

// DeviceError is a classified driver failure.
type DeviceError struct {
	Kind    ErrorKind
	Code    int
	Op      string
	Message string
}

func (e *DeviceError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString("camera ")
	b.WriteString(e.Kind.String())
	if e.Code != 0 {
		fmt.Fprintf(&b, " (%d)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// KindOf extracts the classification from err. Unclassified errors are KindOther.
func KindOf(err error) ErrorKind {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Kind
	}
	return KindOther
}

// IsAbsent reports whether err means no camera is attached.
func IsAbsent(err error) bool { return err != nil && KindOf(err) == KindAbsent }

// IsBusy reports whether err means the camera is held by another process.
func IsBusy(err error) bool { return err != nil && KindOf(err) == KindBusy }

// gphoto2 result codes the session distinguishes.
const (
	codeNotSupported    = -6
	codeIOUSBFind       = -52
	codeIOUSBClaim      = -53
	codeIOLock          = -60
	codeCorruptedData   = -102
	codeModelNotFound   = -105
	codeFileNotFound    = -108
	codeCameraBusy      = -110
	codePathNotAbsolute = -111
)

// ClassifyCode maps a gphoto2 result code to an ErrorKind.
func ClassifyCode(code int) ErrorKind {
	switch code {
	case codeIOUSBFind, codeModelNotFound:
		return KindAbsent
	case codeIOUSBClaim, codeIOLock, codeCameraBusy:
		return KindBusy
	case codeNotSupported, codeCorruptedData, codeFileNotFound, codePathNotAbsolute:
		return KindFile
	default:
		return KindOther
	}
}

var gphotoErrorPattern = regexp.MustCompile(`\*\*\* Error \((-?\d+): '([^']*)'\)`)

// parseGPhotoError extracts the first classified error from gphoto2 output,
// or nil when the output carries none.
func parseGPhotoError(op string, output []byte) *DeviceError {
	text := string(output)
	if m := gphotoErrorPattern.FindStringSubmatch(text); m != nil {
		code, _ := strconv.Atoi(m[1])
		return &DeviceError{Kind: ClassifyCode(code), Code: code, Op: op, Message: m[2]}
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "no camera found"):
		return &DeviceError{Kind: KindAbsent, Op: op, Message: "no camera found"}
	case strings.Contains(lower, "could not claim the usb device"):
		return &DeviceError{Kind: KindBusy, Code: codeIOUSBClaim, Op: op, Message: "could not claim the USB device"}
	}
	return nil
}
