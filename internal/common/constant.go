// Package common contains shared constants and sentinel errors used across
// picsync components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the access token
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix prefixes the access token inside the authorization header.
const BearerPrefix = "Bearer "
