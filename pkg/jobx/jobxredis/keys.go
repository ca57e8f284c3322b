package jobxredis

// DefaultKeyPrefix namespaces every key the queue writes.
const DefaultKeyPrefix = "docqueue"

// keys builds the key names for one prefix:
//
//	{p}:job:{id}   hash with the job record
//	{p}:pending    list of pending ids, LPUSH to add, RPOP to take
//	{p}:processing zset of leased ids scored by lease expiry in unix ms
//	{p}:stats      hash with completed/failed counters
type keys struct {
	prefix string
}

func (k keys) jobPrefix() string { return k.prefix + ":job:" }
func (k keys) job(id string) string { return k.jobPrefix() + id }
func (k keys) pending() string { return k.prefix + ":pending" }
func (k keys) processing() string { return k.prefix + ":processing" }
func (k keys) stats() string { return k.prefix + ":stats" }
