package registry

// Match is a successful route lookup.
type Match struct {
	Leaf     *Leaf
	Captures map[string]string
}

type route struct {
	endpoint *EndpointDefinition
	leaf     *Leaf
}

// Snapshot is a frozen command tree with its routes and introspection list.
// It is safe for concurrent use.
type Snapshot struct {
	root      *Node
	resolvers *Resolvers
	routes    []route
}

// Root returns the root of the command tree.
func (snapshot *Snapshot) Root() *Node { return snapshot.root }

// Resolvers returns the resolver registry the tree was built with.
func (snapshot *Snapshot) Resolvers() *Resolvers { return snapshot.resolvers }

// Endpoints lists the registered endpoint definitions in registration order.
func (snapshot *Snapshot) Endpoints() []*EndpointDefinition {
	endpoints := make([]*EndpointDefinition, 0, len(snapshot.routes))
	for _, registered := range snapshot.routes {
		endpoints = append(endpoints, registered.endpoint)
	}
	return endpoints
}

// Lookup finds the command for method at escapedPath. It returns ErrRouteNotFound when no
// pattern matches and a *MethodNotAllowedError when only other methods match.
func (snapshot *Snapshot) Lookup(method string, escapedPath string) (Match, error) {
	var allowed []string
	for _, registered := range snapshot.routes {
		captures, matched := registered.endpoint.Match(escapedPath)
		if !matched {
			continue
		}
		if registered.endpoint.Method() == method {
			return Match{Leaf: registered.leaf, Captures: captures}, nil
		}
		allowed = append(allowed, registered.endpoint.Method())
	}
	if len(allowed) > 0 {
		return Match{}, &MethodNotAllowedError{Method: method, Path: escapedPath, Allowed: allowed}
	}
	return Match{}, ErrRouteNotFound
}
