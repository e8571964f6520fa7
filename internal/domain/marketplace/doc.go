// Package marketplace contains the Marketplace bounded context.
// This context models a seller's connection to the TikTok Shop open platform.
//
// Key concepts:
//   - Credentials: app key/secret, OAuth tokens and the shop cipher of one connected shop
//   - Request/Response: the logical shape of one signed call and its relayed answer
//   - Error: tagged failure (configuration, transport, upstream HTTP, business, signature mismatch)
//   - Result: tagged Ok/Err outcome used for per-item results of bulk operations
//   - OrderRecord: locally persisted history of orders handled through the dashboard
//
// Design Pattern: Ports & Adapters
//   - Ports (CredentialStore, OrderHistory, DocumentMerger, LabelArchive, ShipmentGuard) are defined here
//   - Adapters (TikTok client, GORM repositories, Redis guard, S3 archive) live in the infrastructure layer
package marketplace
