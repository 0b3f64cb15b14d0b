// Package fetch downloads pages, stylesheets and scripts as text.
//
// The Client behaves like a desktop browser as far as servers can tell:
// it sends a browser User-Agent and Accept-Language, advertises gzip,
// deflate and brotli, follows redirects and decodes the body to UTF-8.
// Some sites serve a different page, or no Google Fonts at all, to
// clients that look like bots. Looking like a browser keeps the scan
// close to what a real visitor loads.
//
// Design decision: Decompression is done by hand instead of relying on
// net/http's transparent gzip because the standard transport only
// understands gzip. Brotli is common on CDNs and must be decoded too.
//
// # Usage
//
//	client, err := fetch.NewClient(fetch.WithTimeout(30 * time.Second))
//	body, err := client.Fetch(ctx, "https://example.com/")
package fetch
