package config

import "time"

// Application constants
const (
	AppName = "covcheck"

	configFileName = AppName + ".yaml"

	// Accepted upload extensions
	ExtXLSX = ".xlsx"
	ExtXLSM = ".xlsm"

	// Multipart form field names for the two workbooks
	FormFieldTargets = "targets"
	FormFieldBulk    = "bulk"

	// Multipart parsing keeps this much in memory before spilling to temp files
	MultipartMemory = 32 << 20

	DefaultHTTPTimeout = 30 * time.Second
)

// ErrMsgMissingUpload is returned when either multipart file is absent
const ErrMsgMissingUpload = "both targets and bulk workbooks are required"
