package common

// RequestIDHeaderName carries the per-request correlation id on HTTP
// requests and responses.
const RequestIDHeaderName = "X-Request-ID"

// AnonymousUserID is the id of the sentinel user returned when no identifier
// is supplied.
const AnonymousUserID = "000"
