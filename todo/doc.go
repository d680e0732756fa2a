// Package todo is the task-list domain: todo items, people they can be
// assigned to, filters, a client for the remote todo API and a Board that
// keeps the local view in sync with the results of API calls.
//
// Every API call goes through a single failover.Strategy, so list, create,
// update and delete share one fallback policy.
package todo
