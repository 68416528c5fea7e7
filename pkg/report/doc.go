// Package report renders records as a paginated PDF document.
package report
