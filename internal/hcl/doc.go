// Package hcl provides the concrete HCL implementation of config.Loader. It
// parses env_comm.hcl and env_<stage>.hcl, translates them into the
// format-agnostic descriptor model, and evaluates value expressions with
// go-cty into env.Node trees.
//
// Expressions see the variables root, stage, name and env (the baseline
// process environment) and a small function library: the go-cty string and
// collection functions plus path() and dotenv().
package hcl
