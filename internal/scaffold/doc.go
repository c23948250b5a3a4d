// Package scaffold generates a starter descriptor pair for a directory. The
// files are built with hclwrite so that they are formatted the same way
// `hclfmt` would format them.
package scaffold
