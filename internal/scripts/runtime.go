package scripts

// registryGlobal is where the runtime keeps vendor modules.
const registryGlobal = "__sitepack"

// runtimeSource is the module-loading runtime. It is emitted on its own and
// must load before the vendor and main bundles.
const runtimeSource = `(function (g) {
  if (g.` + registryGlobal + `) {
    return;
  }
  var modules = Object.create(null);
  g.` + registryGlobal + ` = {
    define: function (name, exports) {
      modules[name] = exports;
    },
    require: function (name) {
      if (!(name in modules)) {
        throw new Error("module " + name + " is not in the vendor bundle");
      }
      return modules[name];
    }
  };
})(typeof globalThis !== "undefined" ? globalThis : window);
`
