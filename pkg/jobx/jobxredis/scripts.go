package jobxredis

import "github.com/redis/go-redis/v9"

// Timestamps never move backwards: a caller whose clock lags the stored
// updated_at keeps the stored value.

// leaseScript grants one lease atomically. The oldest expired lease wins over
// pending work; stale ids left in the pending list are skipped.
//
// KEYS[1] pending list, KEYS[2] processing zset
// ARGV[1] job key prefix, ARGV[2] worker id, ARGV[3] now ms,
// ARGV[4] lease expiry ms, ARGV[5] now timestamp
//
// Returns nil or {reclaimed, previous_owner, HGETALL of the job}.
var leaseScript = redis.NewScript(`
local reclaimed = 0
local previous = ''
local id = nil

local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[3], 'LIMIT', 0, 1)
if #expired > 0 then
    id = expired[1]
    reclaimed = 1
    previous = redis.call('HGET', ARGV[1] .. id, 'lease_owner') or ''
else
    while true do
        id = redis.call('RPOP', KEYS[1])
        if not id then
            return nil
        end
        if redis.call('HGET', ARGV[1] .. id, 'status') == 'pending' then
            break
        end
    end
end

local key = ARGV[1] .. id
local updated = ARGV[5]
local previous_update = redis.call('HGET', key, 'updated_at')
if previous_update and previous_update > updated then
    updated = previous_update
end
redis.call('HSET', key,
    'status', 'processing',
    'lease_owner', ARGV[2],
    'lease_expiry', ARGV[4],
    'updated_at', updated)
redis.call('HINCRBY', key, 'attempts', 1)
redis.call('ZADD', KEYS[2], ARGV[4], id)

return {reclaimed, previous, redis.call('HGETALL', key)}
`)

// finishScript moves a processing job owned by the caller to a terminal state.
//
// KEYS[1] job hash, KEYS[2] processing zset, KEYS[3] stats hash
// ARGV[1] job id, ARGV[2] worker id, ARGV[3] terminal status,
// ARGV[4] field to set (result|error), ARGV[5] field value, ARGV[6] now timestamp
//
// Returns 1 on success, 0 when the lease is not held, -1 for an unknown job.
var finishScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end

local status = redis.call('HGET', KEYS[1], 'status')
local owner = redis.call('HGET', KEYS[1], 'lease_owner')
if status ~= 'processing' or owner ~= ARGV[2] then
    return 0
end

local updated = ARGV[6]
local previous_update = redis.call('HGET', KEYS[1], 'updated_at')
if previous_update and previous_update > updated then
    updated = previous_update
end
redis.call('HSET', KEYS[1], 'status', ARGV[3], 'updated_at', updated)
if ARGV[5] ~= '' then
    redis.call('HSET', KEYS[1], ARGV[4], ARGV[5])
end
redis.call('HDEL', KEYS[1], 'lease_owner', 'lease_expiry')
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('HINCRBY', KEYS[3], ARGV[3], 1)
return 1
`)
