// Package logx is a thin structured-logging layer over zerolog with
// hot-swappable sinks. The zero value of Logger is a safe no-op.
package logx
