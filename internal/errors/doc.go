// Package errors turns failures into HTTP responses.
//
// APIError carries an explicit status and error_code. ErrorHandler maps any
// error, including the reconcile package's MissingSheetError and
// MissingColumnError, onto RFC 7807 problem details:
//
//	errorHandler := errors.NewErrorHandler(logger, false)
//	if err != nil {
//	    errorHandler.HandleError(w, r, err)
//	    return
//	}
package errors
