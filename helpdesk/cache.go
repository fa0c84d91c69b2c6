package main

import (
	"time"

	cache "github.com/patrickmn/go-cache"
)

var cash *cache.Cache

const (
	CACHENAME_GRAPH_CLIENT    = "graphclient"
	CACHENAME_SUBSCRIBED_SKUS = "skus"

	DEFAULT_CACHE_EXPIRATION = 20 * time.Minute
)

func initCache() {
	cash = cache.New(DEFAULT_CACHE_EXPIRATION, 10*time.Minute)
}
