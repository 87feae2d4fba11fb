// Package internal contains the core implementation packages for sitepack.
//
// # Package Organization
//
// The internal packages are organized by pipeline stage:
//
//   - profile: Development and production build profiles
//   - config: Configuration loading and validation
//   - scanner: View discovery
//   - assets: Asset classification, data URLs, content hashes and the icon sprite
//   - renderer: View rendering (templates, markdown, passthrough)
//   - styles: SCSS compilation and CSS minification
//   - scripts: JavaScript bundling and vendor splitting
//   - output: Page injection, the manifest and the atomic output swap
//   - build: Build passes and the rebuilder that serializes them
//   - watcher: File system monitoring with debouncing
//   - server, websocket: Dev server and live reload
//   - modal: The modal dialog contract shared by the browser runtime
//
// # Inter-Package Communication
//
//   - The build pipeline owns a pass and hands a Resolver to every stage that
//     references assets
//   - Stages emit files into the manifest; nothing touches the output directory
//     until the final swap
//   - The watcher triggers the rebuilder, and the rebuilder reports each pass to
//     the dev server, which tells open pages to reload
package internal
