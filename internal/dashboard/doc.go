// Package dashboard assembles a viewer's creator dashboard: items they
// created, the subset already sold, and items they bought.
package dashboard
