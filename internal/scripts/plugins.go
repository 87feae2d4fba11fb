package scripts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/sitepack/internal/assets"
	"github.com/conneroisu/sitepack/internal/modal"
)

const (
	entryModule     = "sitepack:entry"
	vendorModule    = "sitepack:vendors"
	nsVirtual       = "sitepack"
	nsAsset         = "sitepack-asset"
	nsVendorShim    = "sitepack-vendor"
	resolveInternal = "sitepack-internal-resolve"
)

var (
	assetFilter = `(?i)\.(png|jpe?g|gif|svg|webp|avif|woff2?|eot|ttf|otf|ico|pdf)$`
	styleFilter = `(?i)\.(s[ac]ss|css)$`
	bareFilter  = `^[^./]`
)

var bareSpecifier = regexp.MustCompile(`^(@[^/]+/)?[^./:][^:]*$`)

// resolverRef lets the long-lived esbuild context see the resolver of the
// pass currently running. It also keeps the first typed error a plugin
// produced, since esbuild reduces plugin errors to message text.
type resolverRef struct {
	mu    sync.RWMutex
	r     *assets.Resolver
	first error
}

func (ref *resolverRef) set(r *assets.Resolver) {
	ref.mu.Lock()
	ref.r = r
	ref.first = nil
	ref.mu.Unlock()
}

func (ref *resolverRef) fail(err error) error {
	ref.mu.Lock()
	if ref.first == nil {
		ref.first = err
	}
	ref.mu.Unlock()
	return err
}

func (ref *resolverRef) err() error {
	ref.mu.RLock()
	defer ref.mu.RUnlock()
	return ref.first
}

func (ref *resolverRef) get() *assets.Resolver {
	ref.mu.RLock()
	defer ref.mu.RUnlock()
	return ref.r
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// virtualPlugin serves the synthetic entry that imports every configured
// script in order, plus the modal runtime.
func virtualPlugin(entries []string, workDir string) api.Plugin {
	return api.Plugin{
		Name: "sitepack-virtual",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^sitepack:(entry|modal)$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: nsVirtual}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsVirtual},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					var contents string
					switch args.Path {
					case entryModule:
						var b strings.Builder
						for _, e := range entries {
							fmt.Fprintf(&b, "import %s;\n", jsString(e))
						}
						contents = b.String()
					case modal.ModuleName:
						contents = modal.Script()
					default:
						return api.OnLoadResult{}, fmt.Errorf("unknown virtual module %s", args.Path)
					}
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						ResolveDir: workDir,
					}, nil
				})
		},
	}
}

// assetPlugin routes asset imports through the classifier. The imported
// value is the asset's public URL, a data URL or a sprite fragment.
func assetPlugin(ref *resolverRef) api.Plugin {
	return api.Plugin{
		Name: "sitepack-assets",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: styleFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{}, fmt.Errorf(
						"stylesheet %s must be listed under paths.styles instead of imported from a script", args.Path)
				})

			build.OnResolve(api.OnResolveOptions{Filter: assetFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					path := args.Path
					if !filepath.IsAbs(path) {
						if bareSpecifier.MatchString(path) {
							res := build.Resolve(path, api.ResolveOptions{
								Kind:       args.Kind,
								ResolveDir: args.ResolveDir,
								Importer:   args.Importer,
								PluginData: resolveInternal,
							})
							if len(res.Errors) > 0 {
								return api.OnResolveResult{Errors: res.Errors}, nil
							}
							path = res.Path
						} else {
							path = filepath.Join(args.ResolveDir, path)
						}
					}
					return api.OnResolveResult{Path: path, Namespace: nsAsset}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsAsset},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					r := ref.get()
					if r == nil {
						return api.OnLoadResult{}, fmt.Errorf("no asset resolver for %s", args.Path)
					}
					url, err := r.Resolve(args.Path)
					if err != nil {
						return api.OnLoadResult{}, ref.fail(err)
					}
					contents := "export default " + jsString(url) + ";\n"
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						WatchFiles: []string{args.Path},
					}, nil
				})
		},
	}
}

// vendorCollector records third-party packages while building the main
// bundle and replaces each with a shim that reads it from the runtime
// registry.
type vendorCollector struct {
	mu       sync.Mutex
	packages map[string]string
}

func newVendorCollector() *vendorCollector {
	return &vendorCollector{packages: make(map[string]string)}
}

// Specifiers returns the recorded package specifiers, sorted.
func (v *vendorCollector) Specifiers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.packages))
	for spec := range v.packages {
		out = append(out, spec)
	}
	sort.Strings(out)
	return out
}

// ResolveDir returns a directory the specifier resolves from.
func (v *vendorCollector) ResolveDir(spec string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.packages[spec]
}

func (v *vendorCollector) plugin() api.Plugin {
	return api.Plugin{
		Name: "sitepack-vendors",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: bareFilter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.PluginData == resolveInternal || args.Namespace != "file" ||
						!bareSpecifier.MatchString(args.Path) {
						return api.OnResolveResult{}, nil
					}
					res := build.Resolve(args.Path, api.ResolveOptions{
						Kind:       args.Kind,
						ResolveDir: args.ResolveDir,
						Importer:   args.Importer,
						PluginData: resolveInternal,
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					if !isNodeModule(res.Path) {
						return api.OnResolveResult{}, nil
					}

					v.mu.Lock()
					if _, ok := v.packages[args.Path]; !ok {
						v.packages[args.Path] = args.ResolveDir
					}
					v.mu.Unlock()

					return api.OnResolveResult{Path: args.Path, Namespace: nsVendorShim}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: nsVendorShim},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := fmt.Sprintf("module.exports = globalThis.%s.require(%s);\n",
						registryGlobal, jsString(args.Path))
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}

// vendorEntryPlugin serves the vendor bundle's entry, which registers every
// collected package with the runtime under its specifier.
func vendorEntryPlugin(v *vendorCollector, workDir string) api.Plugin {
	return api.Plugin{
		Name: "sitepack-vendor-entry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^sitepack:vendors$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: nsVirtual}, nil
				})
			build.OnResolve(api.OnResolveOptions{Filter: `^sitepack-vendor:`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					spec := strings.TrimPrefix(args.Path, "sitepack-vendor:")
					res := build.Resolve(spec, api.ResolveOptions{
						Kind:       api.ResolveJSRequireCall,
						ResolveDir: v.ResolveDir(spec),
						PluginData: resolveInternal,
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					return api.OnResolveResult{Path: res.Path, Namespace: res.Namespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: `^sitepack:vendors$`, Namespace: nsVirtual},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					var b strings.Builder
					for _, spec := range v.Specifiers() {
						fmt.Fprintf(&b, "globalThis.%s.define(%s, require(%s));\n",
							registryGlobal, jsString(spec), jsString("sitepack-vendor:"+spec))
					}
					contents := b.String()
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     api.LoaderJS,
						ResolveDir: workDir,
					}, nil
				})
		},
	}
}

func isNodeModule(path string) bool {
	p := filepath.ToSlash(path)
	return strings.Contains(p, "/node_modules/")
}
