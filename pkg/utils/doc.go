// Package utils holds the request and response helpers shared by the HTTP
// handlers: JSON decoding with struct validation, the structured error body
// and email masking for logs.
package utils
