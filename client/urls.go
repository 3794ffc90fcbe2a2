package client

// URLBuilder constructs URLs for packages hosted by a registry.
type URLBuilder interface {
	Package(game, namespace, name string) string
	Download(namespace, name, version string) string
	PURL(namespace, name, version string) string
}
