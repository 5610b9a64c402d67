// Package integration contains the Integration bounded context.
// It joins logistics quotes with tax results into ranked landed-cost offers.
//
// Key concepts:
//   - Request: one order plus its shipping context, quoted in one or both delivery modes
//   - IntegratedQuote: read-only projection of a carrier quote and the matching tax result
//   - Score: weighted cost, time, compliance and reliability components, each 0-100
//   - Response: ranked quotes, aggregate analysis and recommendations
//
// Integrated quotes are built per request and never persisted.
package integration
