// Package apiclient is a thin HTTP client for the shelf daemon API.
package apiclient
