// Package monitor shows validated announces as they arrive, either as a
// bubbletea program or as single styled lines for the daemon console.
package monitor
