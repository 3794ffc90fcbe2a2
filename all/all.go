// Package all imports all registry backends.
//
// Import this package for its side effects to register every backend:
//
//	import (
//		"github.com/git-pkgs/tsmm"
//		_ "github.com/git-pkgs/tsmm/all"
//	)
//
//	// Now all backends are available
//	backends := tsmm.SupportedRegistries()
//	// ["mirror", "thunderstore"]
package all

import (
	_ "github.com/git-pkgs/tsmm/internal/mirror"
	_ "github.com/git-pkgs/tsmm/internal/thunderstore"
)
