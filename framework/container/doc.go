// Package container provides the dependency-injection core of go-boot.
//
// # Overview
//
// Services are described, not reflected on: a Descriptor names the service,
// lists its constructor parameters, picks a Lifetime and supplies a
// Constructor. The container derives the dependency graph from the parameter
// list, rejects cycles, computes an initialization order and binds one Provider
// per service.
//
// # Parameters
//
//	container.Typed("db", "DatabaseClient")            // inferred → "database_client"
//	container.Ref("mailer", "email_service")           // explicit service name
//	container.Typed("cache", "CacheService").AsOptional() // nil when not registered
//	container.Value("retries", 3)                      // plain value with default
//
// # Lifecycle
//
//  1. Create:   c := container.New(container.WithLogger(log))
//  2. Register: c.RegisterService(desc) for every service
//  3. Build:    res, err := c.Build()
//  4. Resolve:  svc, err := c.Resolve("user_service")
//
// Build fails with *CircularDependencyError when the graph has a cycle and with
// *MissingDependencyError for each required dependency that was never
// registered. A failed build installs nothing; BuildFailed tells the caller to
// fall back to direct construction.
//
// # Lifetimes
//
// Singleton services are constructed on first Resolve, exactly once even under
// concurrent first calls, and cached. Factory services are constructed on
// every Resolve and are skipped by ResolveAll. A constructor error surfaces as
// *ConstructionError and is not cached: the next Resolve tries again.
//
// # Contextual Binding
//
//	c.When("order_service").Needs("email_service").Give("smtp_email_service")
//
// # Modules
//
//	mods := container.NewModules(c)
//	mods.Register(&ShopModule{})
//	c.Build()
//	mods.Boot()
package container
