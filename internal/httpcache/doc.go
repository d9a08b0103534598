// Package httpcache implements the conditional-caching protocol every
// served resource passes through.
//
// Given a cache key, a last-modified time, and an optional max-age, Respond
// decides from the request's validators (If-None-Match, If-Modified-Since)
// whether the caller already holds a current copy. On a match it answers
// 304 without invoking the producer at all; otherwise it produces the body
// and attaches the header set (ETag, Last-Modified, Cache-Control, Expires,
// Age) that makes the response cacheable downstream.
//
// Range requests and compression are negotiated here too, and are mutually
// exclusive: compressing a sliced range is not meaningful, so a ranged
// request always bypasses compression.
//
// Malformed conditional headers are treated as absent. Producer errors
// surface as uncacheable 5xx responses; an error body must never carry
// validators a client could revalidate against.
package httpcache
