/*
Package observability records Prometheus metrics for conversions.

Metrics counts conversions by direction, family and outcome, measures their
duration and counts the segments and rows that flow through them. A nil
*Metrics is valid and records nothing, so callers never need to check.
*/
package observability
