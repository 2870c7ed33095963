// Package layerops implements algorithms over layers: overlap conflict
// detection and resolution, merging, flattening enveloping layers, diffing,
// and span pair iteration and interval lookup.
//
// Operations that produce a layer return a new unattached layer bound to the
// source text. ResolveConflicts and KeepAnnotations mutate the given layer in
// place.
package layerops
