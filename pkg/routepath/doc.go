// Package routepath normalizes in-app locations for the navigation core.
//
// Every path that reaches the matcher or a history stack goes through
// Canonicalize first, so "/experiment/alpha/" and "/experiment//alpha"
// resolve the same way as "/experiment/alpha". Base paths (a deployment
// sub-path such as "/app") are normalized with NormalizeBase and applied
// with JoinBase / StripBase.
package routepath
