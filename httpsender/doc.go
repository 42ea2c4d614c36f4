// Package httpsender delivers tillsync items as JSON POST requests.
//
// Every target maps to one endpoint URL. The item body is sent with the shared
// token merged in. By default an endpoint acknowledges a delivery with a 2xx
// status and a JSON object whose "ok" field is true; ContractStatus relaxes that
// to any 2xx status.
package httpsender
